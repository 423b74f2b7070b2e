// Package board implements the board application: the relay, the button,
// the LED strip and the reactions to broadcast messages.
//
// Periodic tasks are controllers running in a framework.Loop; receive
// callbacks reach the loop as posted messages.
package board
