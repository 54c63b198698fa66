// Package catalog writes the export view into a relational table so other
// services can query the collection with SQL.
//
// Rows live in collection_items keyed by (image_id, part). A sync upserts every
// exported record and deletes rows that are no longer exported, inside one
// transaction. Both MySQL and SQLite are supported through core/database.
package catalog
