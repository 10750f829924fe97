// Package proto holds the line-oriented chat protocol vocabulary.
//
// Every value produced here is a single line without its terminator; the
// transport appends Terminator when writing.
package proto

// Terminator ends every protocol line in both directions.
const Terminator = '\n'

// Inbound verbs.
const (
	VerbLogin  = "login"
	VerbSay    = "say"
	VerbLook   = "look"
	VerbLogout = "logout"
)

// Fixed server responses.
const (
	ConnectSuccess    = "Connect Success"
	LoginSuccess      = "Login Success"
	UserNameEmpty     = "UserName Empty"
	UserNameExist     = "UserName Exist"
	OnlineUsersHeader = "Online Users:"
)

// Entered announces that name joined the chat room.
func Entered(name string) string {
	return name + " has entered the room."
}

// Left announces that name left the chat room.
func Left(name string) string {
	return name + " has left the room."
}

// Said renders a chat message from name.
func Said(name, text string) string {
	return name + ": " + text
}

// UnknownCommand is the reply to a verb the current room does not support.
func UnknownCommand(verb string) string {
	return "Unknown command " + verb
}
