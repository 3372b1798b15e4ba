package skema

// Package skema provides:
//
// - A schema registry filled at startup from directories of JSON/YAML documents
// - Association of a schema with a Go type
// - Two-tier validation: TryValidate returns a Result, Validate returns a typed error
// - A stable error model via ValidationError (keyword, JSON Pointer, params)
//
// Design policy:
// - Keep only the public facade in the root package; the loader, registry and
//   evaluation engine live in their own packages.
// - Initialization is one blocking call (Start); validation calls afterwards are
//   pure apart from the documented data rewriting, and safe for concurrent use.
// - Prefer black-box testing against public APIs.
//
// Typical usage:
//
//  v, err := skema.Start(ctx, cfg, skema.WithAssociations(assoc))
//  res := v.TryValidateWith(skema.ID("user"), data)
//  if err := v.Validate(&req); err != nil { ... }
//
