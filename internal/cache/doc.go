// Package cache provides a small generic memoisation cache.
//
//	c := cache.New[string, []color.RGBA](32)
//	lut := c.GetOrCreate(key, func() []color.RGBA { return expand(stops) })
//
// Cache is safe for concurrent use and must not be copied after creation
// (it contains a mutex).
package cache
