//go:build unix

package hostinfo

import (
	"os/user"
	"strconv"
	"time"

	"golang.org/x/sys/unix"
)

func readUname() (Uname, bool) {
	var u unix.Utsname
	if err := unix.Uname(&u); err != nil {
		return Uname{}, false
	}
	return Uname{
		Sysname:  unix.ByteSliceToString(u.Sysname[:]),
		Release:  unix.ByteSliceToString(u.Release[:]),
		Version:  unix.ByteSliceToString(u.Version[:]),
		Nodename: unix.ByteSliceToString(u.Nodename[:]),
		Machine:  unix.ByteSliceToString(u.Machine[:]),
	}, true
}

func currentUser() (User, bool) {
	uid := unix.Getuid()
	out := User{UID: uid}
	if u, err := user.LookupId(strconv.Itoa(uid)); err == nil {
		out.Username = u.Username
	}
	return out, true
}

func readRusage() (Rusage, bool) {
	var ru unix.Rusage
	if err := unix.Getrusage(unix.RUSAGE_SELF, &ru); err != nil {
		return Rusage{}, false
	}
	return Rusage{
		Utime:   time.Duration(ru.Utime.Nano()),
		Stime:   time.Duration(ru.Stime.Nano()),
		MaxRSS:  int64(ru.Maxrss),
		MinFlt:  int64(ru.Minflt),
		MajFlt:  int64(ru.Majflt),
		NSwap:   int64(ru.Nswap),
		InBlock: int64(ru.Inblock),
		OuBlock: int64(ru.Oublock),
	}, true
}
