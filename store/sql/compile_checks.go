package sqlstore

import (
	"github.com/goliatone/go-vdrpool/core"
	vdrquery "github.com/goliatone/go-vdrpool/query"
)

var (
	_ core.OperationJournal    = (*JournalStore)(nil)
	_ core.OperationReader     = (*JournalStore)(nil)
	_ vdrquery.OperationLister = (*JournalStore)(nil)
	_ OperationStore           = (*CachedJournal)(nil)
	_ vdrquery.OperationLister = (*CachedJournal)(nil)
)
