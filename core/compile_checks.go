package core

import glog "github.com/goliatone/go-logger/glog"

var (
	_ RequestSubmitter = (*Service)(nil)
	_ OperationJournal = NopOperationJournal{}
	_ RawConfigLoader  = YAMLConfigLoader{}
	_ RawConfigLoader  = EnvConfigLoader{}
	_ RawConfigLoader  = StaticConfigLoader{}
	_ ConfigProvider   = (*CfgxConfigProvider)(nil)
	_ OptionsResolver  = GoOptionsResolver{}

	_ Logger         = glog.Nop()
	_ LoggerProvider = glog.ProviderFromLogger(glog.Nop())
)
