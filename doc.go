// Package rete is a forward-chaining production-rule engine for Go.
//
// The engine maintains a working memory of host facts and incrementally
// matches them against a compiled Rete discrimination network. Matches are
// queued on a priority agenda and executed by a fire loop. The public entry
// point is pkg/session; pkg/rete holds the network and its builder.
//
//	network, _ := builder.Build()
//	s := session.New(network)
//	_ = s.Insert(&Order{Total: 120})
//	fired, _ := s.Fire()
//
// Sessions are single-threaded: a session must only be driven from one
// goroutine at a time.
package rete
