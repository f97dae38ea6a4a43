// Package naming maps container names to the connection names the grant
// registry stores.
//
// A container is named <container-prefix><suffix>, ptvnc by default. The
// registry knows the same sandbox under <connection-prefix><suffix>, pt by
// default, but historically under two spellings for numeric suffixes:
//
//	ptvnc1   -> pt01, pt1     (padded first, then unpadded)
//	ptvnc12  -> pt12          (both rules agree)
//	ptvnc-lab -> pt-lab       (non-numeric suffix, verbatim)
//	ptvnc    -> (none)
//	web1     -> (none)
//
// Lookups try candidates in order and stop at the first registered
// connection. New names are generated unpadded (ptvnc1, ptvnc2, ...).
package naming
