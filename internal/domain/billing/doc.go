// Package billing holds the ledger's financial records: clients, the orders they
// place, and the invoices raised against those orders.
//
// Invariants enforced here:
//   - an Order becomes INVOICED only when an Invoice is raised for it, and returns
//     to PENDING only when that Invoice is deleted
//   - an Invoice raised for an Order always carries the Order's client and amount
//   - PAID is never overridden by overdue reconciliation
//
// Uniqueness of codes and the one-invoice-per-order rule are enforced together
// with the store (unique indexes) and checked again by the application layer.
package billing
