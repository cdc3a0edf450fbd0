// Command devbox is the workspace CLI. It talks to the devboxd daemon over a
// Unix socket, launching it on demand, and mirrors executed command exit
// codes into its own exit status.
package main
