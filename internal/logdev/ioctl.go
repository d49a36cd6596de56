package logdev

import "unsafe"

// SeekToArgs is the argument block of the SEEKTO control command.
type SeekToArgs struct {
	WriteCmd       uint32
	WriteCmdOffset uint32
}

const (
	// IocMagic is the ioctl type byte shared with the kernel driver.
	IocMagic = 0x16

	iocNRBits   = 8
	iocTypeBits = 8
	iocSizeBits = 14

	iocNRShift   = 0
	iocTypeShift = iocNRShift + iocNRBits
	iocSizeShift = iocTypeShift + iocTypeBits
	iocDirShift  = iocSizeShift + iocSizeBits

	iocWrite = 1
	iocRead  = 2
)

// IocSeekTo is the request number of AESDCHAR_IOCSEEKTO.
var IocSeekTo = iowr(IocMagic, 1, unsafe.Sizeof(SeekToArgs{}))

func iowr(typ, nr, size uintptr) uintptr {
	return (iocRead|iocWrite)<<iocDirShift | typ<<iocTypeShift | nr<<iocNRShift | size<<iocSizeShift
}
