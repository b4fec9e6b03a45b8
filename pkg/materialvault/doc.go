// Package materialvault provides a materials-catalog library with a
// submission review workflow.
//
// Submissions arrive as untrusted field maps and wait in a pending queue.
// A reviewer approves, rejects, or reopens them. Approval converts one
// submission into one committed Material (created fresh or merged into an
// existing record by official name) plus its classified images, using three
// separately committed repository transactions:
//
//  1. material upsert (required; any failure aborts the approval)
//  2. image upsert (best effort; failures become a warning, never an error)
//  3. submission finalization (required; guarded by a still-pending check)
//
// The same defaulting rules are applied by approval and bulk import so the
// two entry points can never diverge in which fields get filled.
//
// Storage is pluggable: repositories live under repo/ (memory, postgres) and
// blob stores under storage/ (memory, fs, s3).
package materialvault
