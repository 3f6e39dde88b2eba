// Package core contains the pool registry, request registry, error translation
// and asynchronous dispatch bridge. Engine packages implement the Pool and
// PoolFactory contracts; core must not depend on any specific engine.
package core
