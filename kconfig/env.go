// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 The ArdaKconfigLibrary Authors.
//
// env.go generalizes kraftkit's parser.env KeyValueMap field
// (kconfig/parser.go) into an injectable interface, per Design Notes §9
// ("thread a parser context record carrying cwd and an env provider
// interface; call sites that set environment do so through the same
// interface").

package kconfig

import "os"

// KeyValue is a single environment binding, matching the shape
// kraftkit's cmd/kraft/kconfig/dump/dump.go constructs by hand
// (&kconfig.KeyValue{Key: ..., Value: ...}).
type KeyValue struct {
	Key   string
	Value string
}

// EnvProvider abstracts process environment access so the parser never
// calls os.Getenv/os.Setenv directly (spec.md §1 "out of scope: environment
// access" for the core; it only needs a seam to call through).
type EnvProvider interface {
	Lookup(key string) (string, bool)
	Set(key, value string) error
}

// mapEnv is an EnvProvider backed by a fixed map, the in-memory equivalent
// of kraftkit's KeyValueMap seeded from Parse's variadic *KeyValue args.
type mapEnv map[string]string

// NewMapEnv builds an EnvProvider from a fixed set of bindings, useful for
// tests and for the KConfig.uk `$(UK_BASE)`-style preamble kraftkit
// resolves ahead of parsing.
func NewMapEnv(kvs ...*KeyValue) EnvProvider {
	m := mapEnv{}
	for _, kv := range kvs {
		m[kv.Key] = kv.Value
	}
	return m
}

func (m mapEnv) Lookup(key string) (string, bool) {
	v, ok := m[key]
	return v, ok
}

func (m mapEnv) Set(key, value string) error {
	m[key] = value
	return nil
}

// osEnv is an EnvProvider backed by the real process environment. It is
// never used unless a caller opts in via WithEnv; the default provider is
// an empty mapEnv{}, so tests stay deterministic.
type osEnv struct{}

// OSEnv is the EnvProvider backed by the real process environment.
var OSEnv EnvProvider = osEnv{}

func (osEnv) Lookup(key string) (string, bool) { return os.LookupEnv(key) }

func (osEnv) Set(key, value string) error { return os.Setenv(key, value) }

// EntryValues is a set of NAME[=value] overrides, generalizing kraftkit's
// unikraft/component.KConfig and kconfig.KConfigValues (two near-duplicate
// teacher types folded into one here, per SPEC_FULL.md §10). It is a
// standalone helper: neither the CLI nor LoadDotConfig uses it.
type EntryValues map[string]*string

// NewEntryValues builds a set from KEY[=VALUE] strings, as kraftkit's
// NewKConfig/NewKConfigValues do.
func NewEntryValues(values ...string) EntryValues {
	out := EntryValues{}
	for _, v := range values {
		for i := 0; i < len(v); i++ {
			if v[i] == '=' {
				val := v[i+1:]
				out[v[:i]] = &val
				goto next
			}
		}
		out[v] = nil
	next:
	}
	return out
}

// OverrideBy merges other into kvs, other winning on conflict.
func (kvs EntryValues) OverrideBy(other EntryValues) EntryValues {
	for k, v := range other {
		kvs[k] = v
	}
	return kvs
}

// Resolve fills in keys that have no associated value (bare `KEY`, as
// opposed to `KEY=`) by looking them up through env.
func (kvs EntryValues) Resolve(env EnvProvider) EntryValues {
	for k, v := range kvs {
		if v == nil {
			if val, ok := env.Lookup(k); ok {
				kvs[k] = &val
			}
		}
	}
	return kvs
}

// RemoveEmpty drops keys with no value or an empty value.
func (kvs EntryValues) RemoveEmpty() EntryValues {
	for k, v := range kvs {
		if v == nil || *v == "" {
			delete(kvs, k)
		}
	}
	return kvs
}
