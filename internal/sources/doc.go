// Package sources provides the adapters that fetch live data from external
// tile providers and render it into configuration snippets.
//
// Every adapter satisfies the Adapter interface and returns a Result that is
// either Single (config only) or Paired (config and sidecar script). Whether
// an adapter produces a sidecar is declared up front through
// SidecarExtension, so generated filenames are known without fetching.
//
// Current implementations:
//   - staticAdapter: renders a template with configured variables only
//   - capabilitiesAdapter: renders a template with the latest value of a
//     JSON capabilities document, located by a gjson path
//   - sessionAdapter: renders a template with credentials obtained by a
//     session.CredentialsFetcher
//   - fileAdapter: passes a config file, and optionally a sidecar, through verbatim
//
// Adapters are created from configuration through an AdapterFactory.
package sources
