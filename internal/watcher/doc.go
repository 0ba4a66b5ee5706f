// Package watcher defines the core types shared by the fetch, classify and notify stages.
package watcher
