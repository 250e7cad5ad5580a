// Package domain models NYC Department of Health and Mental Hygiene (DOHMH)
// restaurant inspection results and derives the letter grade each
// establishment should display.
//
// # Data Source
//
// Inspection results are published on NYC Open Data as the "DOHMH New York
// City Restaurant Inspection Results" dataset, served through an OData v4
// endpoint. The dataset is denormalized: one row per cited violation, so a
// single inspection visit usually appears on several rows sharing the same
// permit (CAMIS), date and inspection type.
//
// # DOHMH Data Conventions
//
// Inspection type:
//
//	"<program> / <kind>"  →  e.g. "Cycle Inspection / Re-inspection"
//	Programs: "Cycle Inspection", "Pre-permit (Operational)".
//	Kinds: Initial Inspection, Re-inspection, Reopening Inspection,
//	Compliance Inspection, Second Compliance Inspection, and a handful of
//	others that are kept but never graded. Other programs (administrative,
//	smoke-free air act, calorie posting, ...) are quarantined.
//
// Dates:
//
//	"2024-04-26T00:00:00.000" in the OData feed, "04/26/2024" in CSV exports.
//	"1900-01-01" is a placeholder for establishments that were never
//	inspected; such rows are dropped at the ingestion boundary.
//
// Missing values:
//
//	Empty strings and the literal "None" are treated as absent.
//
// # Grading
//
// Scores are violation points: lower is better. An initial inspection scoring
// 0–13 earns an A; anything higher leaves the establishment ungraded until a
// re-inspection, which grades 0–13 A, 14–28 B and 29+ C. Establishments
// closed by DOHMH reopen with a grade carried over from the inspection that
// closed them, found by walking the closure chain (see [Resolver]).
//
// Raw grades N, Z and P are displayed as "Not Yet Graded" (N) and
// "Grade Pending" (Z, P). An inspection with no violations always displays A.
package domain
