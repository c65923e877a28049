// Package errors provides coded, structured errors for behave.
//
// Every error raised by the engine, the config loader, the fragment
// sources and the CLI carries a code (e.g. "E110") that maps to a short
// message, a longer explanation and a category:
//   - config: behave.json and settings problems
//   - behavior: registration and attach/detach failures
//   - fragment: supplementary markup could not be fetched
//   - cli: command line usage errors
//
// # Usage
//
//	err := errors.New("E110").
//	    WithBehavior("flag").
//	    Wrap(cause)
//
//	fmt.Println(err.Format())
//	// Output:
//	// ERROR E110: Behavior attach failed
//	//
//	//   behavior: flag
//	//
//	//   The behavior returned an error while attaching. ...
package errors
