// Package domain contains the core business entities of the blog generator:
// generation requests, generated blogs, and brand ad lookups. It is
// independent of any specific infrastructure or delivery mechanism.
package domain
