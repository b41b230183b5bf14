// Package decisionengine implements the collective decision engine inside the
// deliberation context.
//
// The module owns the decision lifecycle (draft/open/closed), the per-actor
// vote ledger for five decision protocols, protocol tabulation, the consent
// stage schedule, and decision event production through the outbox-backed
// deadline sweeper and relay workers. Business rules live in the domain and
// application layers; infrastructure stays behind ports and adapters.
package decisionengine
