// Package codesign signs macOS artifacts with a signing identity held in an
// ephemeral keychain.
//
// The keychain is created and unlocked by Init, receives the PKCS#12 identity,
// and must be removed with DeleteKeychain once signing and notarization are
// over. Native libraries are signed both as loose files and as entries inside
// jars.
package codesign
