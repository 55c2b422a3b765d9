// Command vodmill is the operator CLI for the VOD processing daemon.
package main
