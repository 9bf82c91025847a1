// Package book holds the catalog domain: the book entity, the storage
// contract, and the service that enforces the business rules around
// creation, enrichment, and cache invalidation.
package book
