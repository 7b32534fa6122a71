// Command vodworks is the operator CLI for the movie pipeline: submitting
// files, inspecting the catalog, retrying failures, and managing
// configuration.
package main
