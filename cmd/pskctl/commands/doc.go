// Package commands defines the pskctl CLI.
//
// Commands
//
//   - binder   Compute the binder of a pre-shared key over a transcript digest
//   - decode   Print the identities and binders of a pre_shared_key extension
//   - demo     Resume a session between an in-process client and server
package commands
