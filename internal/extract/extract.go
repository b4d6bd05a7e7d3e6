// Package extract resolves hoster embed URLs into playable stream URLs.
//
// Two independent strategies exist: MegaCloud (HD-1/HD-2/HD-3), which walks
// an embed page, a nonce-keyed sources API and a remote decryption service,
// and StreamTape, which de-obfuscates an inline script. Both type their
// failures with media.ErrExtraction; extraction failures are expected and
// frequent, and callers treat them as "no streams" rather than hard errors.
package extract
