// Package ftp implements an FTP client: RFC 959 plus the FEAT, SIZE, MDTM,
// REST, PASV and UTF-8 extensions.
//
// # Overview
//
// A [Client] drives a single control connection and, for the duration of a
// transfer, a single data connection negotiated via PASV or PORT. Sessions
// are not safe for concurrent commands: exactly one command, including a
// transfer, may be in flight at a time. The one exception is [Client.Abort],
// which may be called from another goroutine while a transfer is pumping
// bytes.
//
// # Basic usage
//
//	client, err := ftp.Dial("ftp.example.com:21")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Quit()
//
//	if err := client.Login("username", "password"); err != nil {
//	    log.Fatal(err)
//	}
//
// # Transfers
//
//	file, err := os.Open("local.txt")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer file.Close()
//
//	if err := client.Store("remote.txt", file); err != nil {
//	    log.Fatal(err)
//	}
//
// # Error handling
//
// Errors returned by this package are one of the tagged kinds in errors.go:
// [IllegalStateError], [IOError], [IllegalReplyError], [ServerError],
// [DataTransferError], [AbortedError], [ListParseError]. Use errors.As to
// recover the concrete kind.
//
//	var se *ftp.ServerError
//	if errors.As(err, &se) {
//	    fmt.Println(se.Code, se.Lines)
//	}
package ftp
