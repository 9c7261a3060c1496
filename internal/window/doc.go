// Package window models the application's windows without a toolkit.
//
// All methods of Base, StatusWindow, MainWindow and MainPage must be called
// on the UI goroutine. Bus handlers never touch window state directly; they
// post to the UI dispatcher.
package window
