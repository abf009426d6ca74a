// Package service wires the stdio transport to the tool dispatcher.
//
// It owns process-level assembly: camera driver selection, remote
// collaborators, the tool registry, the executor and the optional call
// journal. Protocol meaning lives in the dispatch package and tool meaning in
// the domain package.
package service
