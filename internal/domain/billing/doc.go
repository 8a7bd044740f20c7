// Package billing provides domain models for the rent billing cycle.
//
// This package implements the billing bounded context, which is responsible for:
//   - Issuing bills against active leases (initial bill and monthly rollover)
//   - Computing overdue penalties on unpaid bills
//   - Flipping bills to paid during payment settlement
//
// Key Aggregates:
//   - Bill: A single rent obligation on a lease
//
// Domain Services:
//   - BillingCycle: Due-date arithmetic and idempotent bill rollover
//
// The billing domain integrates with:
//   - Tenancy domain: Bills accrue only while a lease is active
//   - Payment domain: Settlement marks bills paid oldest-due-date first
package billing
