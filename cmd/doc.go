// # Available Commands
//
//   - init: write a default .assetloader.yml
//   - build: compile a JS or CSS bundle and report the artifacts
//   - tag: print the loader markup for a bundle, a local path or a URL
//   - watch: rebuild on change and notify browsers over a websocket
//   - integrity: get, compute, delete, clear or list cached SRI hashes
//   - config: show or validate the configuration
//   - version: print build information
//
// # Command Examples
//
//	// Build a stylesheet bundle and print a JSON manifest
//	assetloader build --dir public --kind css css/reset.css css/app.css --format json
//
//	// Print the script loader for a bundle
//	assetloader tag --dir public --kind js js/app.js
//
//	// Rebuild on change with live notifications
//	assetloader watch --dir public --kind css css/app.css --notify-addr localhost:35729
package cmd
