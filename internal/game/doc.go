// Package game implements the Texas Hold'em betting state machine: seats,
// action validation, betting rounds, side pots and showdown settlement.
//
// The package is purely in-memory and single-threaded; the table orchestrator
// owns serialization of access to a Hand.
package game
