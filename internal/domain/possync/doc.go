// Package possync contains the domain model for the POS catalog and
// inventory synchronization engine: the canonical product/stock shapes
// exchanged with provider adapters, the product mapping and sync log
// entities, the pure conflict resolver, and the ports (provider adapter,
// mapping store, run lock, credential service) that the application layer
// orchestrates. Concrete implementations live in internal/infrastructure.
package possync
