// Package vault implements the Credential Vault: it derives an
// at-rest protection key and uses it to seal device credentials
// (telnet passwords) so an exported configuration snapshot or report
// never carries plaintext secrets.
package vault
