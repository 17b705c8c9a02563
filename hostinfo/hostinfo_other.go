//go:build !unix

package hostinfo

import (
	"os"
	"os/user"
	"runtime"
)

func readUname() (Uname, bool) {
	host, _ := os.Hostname()
	return Uname{Sysname: runtime.GOOS, Nodename: host, Machine: runtime.GOARCH}, true
}

func currentUser() (User, bool) {
	u, err := user.Current()
	if err != nil {
		return User{}, false
	}
	return User{UID: -1, Username: u.Username}, true
}

func readRusage() (Rusage, bool) { return Rusage{}, false }
