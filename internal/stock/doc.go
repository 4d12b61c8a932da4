// Package stock defines the product catalog, stock statuses, fetch contracts
// and the page status extractor shared by the watcher's subsystems.
package stock
