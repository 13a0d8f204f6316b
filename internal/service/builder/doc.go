// Package builder turns staged inputs into a single platform-native installer
// in dist/.
//
// Every platform runs the same sequence: read the version, run the strategy's
// pre-pack hook, invoke the packaging executable, normalize the artifact name
// and run the post-pack hook. A Strategy supplies the platform-specific parts
// and ForPlatform selects one by host OS.
package builder
