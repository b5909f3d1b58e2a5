// Package handle maps host objects to small integers a guest can hold.
//
// A guest cannot store a pointer to a host object, so every object crossing
// the boundary is registered in a Table and the guest keeps the returned
// Handle. Handles are dense: removed slots go on a free list and the lowest
// free index is reused first, so the handle space never exceeds the peak
// number of concurrently live objects.
//
// # Stale Handles
//
// Get returns an invalid_handle error for a removed or never-issued handle.
// Lookup is the comma-ok form for callers that tolerate missing values.
// Host-side holders that outlive a guest call should keep a Ref instead of
// a bare Handle; Resolve rejects a Ref whose slot has since been recycled.
//
// # Categories
//
// A Registry keeps one table per Category. Guests name categories by their
// index in Categories.
package handle
