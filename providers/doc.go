// Package providers groups the pool engines that plug into core.Service.
//
// genesis serves a genesis transaction set and delegates ledger requests to a
// Responder. devkit holds scripted engines and fixtures for tests.
package providers
