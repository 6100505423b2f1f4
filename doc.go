/*
Package apexsync keeps a DNS zone's apex A record pointed at the current
public IP address of the machine it runs on.

Usage will always start with [apexsync.New],
which takes the zone [Credentials] and returns the Client implementation.
Each call to Run performs one reconcile pass:
the public IP is resolved, compared against the record's published content,
and the record is patched only when the two differ.
Additional client configuration options are listed in the docs for New.
*/
package apexsync
