// sqlp runs caller supplied statements for entities, over database/sql.
//   - Handlers per statement: inserts (batched when the driver can, with generated keys),
//     updates and deletes with row counts, and queries read through binders.
//   - Prepared statements cached per handler, and connections shared per DAO, both without locks:
//     whoever finds them taken gets a fresh one.
//   - Contextual transactions to let you write tx agnostic methods cleanly, which every handler joins.
//   - Entity tables from struct tags, eg. `sqlp:"id,pk,default"`.
package sqlp
