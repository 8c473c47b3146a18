// Package cli is the interactive terminal front-end of the fieldmate client.
//
// The App reads commands from a line-oriented REPL and renders results as
// plain text. It also implements session.Navigator: the session gate moves
// it between the login, PIN setup, PIN unlock and home screens, and while a
// gate screen is shown only the commands that can leave it are accepted.
//
// Typical flow: login, pin (first run), then jobs, start <job>, stop, sync.
// After the access token expires or the backend rejects the session the app
// locks itself and asks for unlock.
package cli
