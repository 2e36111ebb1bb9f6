// Package datasets registers the cleaning definitions of the raw public-health
// datasets with the core registry. Import this package to ensure all
// datasets are registered.
package datasets

// Each dataset file uses init() to register its definition.
