// Package ui is the terminal frontend. It draws the main and status panes
// with tcell and turns key presses into actions posted to the UI
// dispatcher.
//
// Keys:
//
//	s          toggle the status window
//	x          shutdown button
//	q Esc ^C   close the main window
package ui
