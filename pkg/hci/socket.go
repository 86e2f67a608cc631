package hci

import (
	"fmt"
	"io"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sys/unix"
)

func ioW(t, nr, size uintptr) uintptr {
	return (1 << 30) | (t << 8) | nr | (size << 16)
}

func ioctl(fd, op, arg uintptr) error {
	if _, _, ep := unix.Syscall(unix.SYS_IOCTL, fd, op, arg); ep != 0 {
		return ep
	}
	return nil
}

const (
	ioctlSize  = 4
	typPN544   = 0xE9
	maxMessage = 0xFF
)

var pn544SetPower = ioW(typPN544, 0x01, ioctlSize) // PN544_SET_PWR

type PowerMode uintptr

const (
	PowerOff      PowerMode = 0
	PowerOn       PowerMode = 1
	PowerFirmware PowerMode = 2
)

// Socket is the controller's character device exposed as a ReadWriteCloser.
type Socket struct {
	fd     int
	path   string
	closed chan struct{}
	once   sync.Once
	rmu    sync.Mutex
	wmu    sync.Mutex
}

// NewSocket opens the controller device node and powers it on.
func NewSocket(path string) (*Socket, error) {
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	s := &Socket{fd: fd, path: path, closed: make(chan struct{})}

	// Power cycle in case the previous session didn't clean up.
	if err := s.SetPower(PowerOff); err != nil {
		unix.Close(fd)
		return nil, err
	}
	if err := s.SetPower(PowerOn); err != nil {
		unix.Close(fd)
		return nil, err
	}

	// poll for 20ms to see if any data is left over, then clear it
	pfds := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLIN}}
	unix.Poll(pfds, 20)
	if pfds[0].Revents&unix.POLLIN > 0 {
		b := make([]byte, maxMessage)
		unix.Read(fd, b)
	}
	return s, nil
}

func (s *Socket) SetPower(mode PowerMode) error {
	if err := ioctl(uintptr(s.fd), pn544SetPower, uintptr(mode)); err != nil {
		return fmt.Errorf("%s: set power %d: %w", s.path, mode, err)
	}
	return nil
}

func (s *Socket) Read(p []byte) (int, error) {
	select {
	case <-s.closed:
		return 0, io.EOF
	default:
	}
	s.rmu.Lock()
	defer s.rmu.Unlock()
	return unix.Read(s.fd, p)
}

func (s *Socket) Write(p []byte) (int, error) {
	s.wmu.Lock()
	defer s.wmu.Unlock()
	return unix.Write(s.fd, p)
}

// Close powers the controller off and releases the device. Only the first
// call does anything.
func (s *Socket) Close() error {
	var err error
	s.once.Do(func() {
		close(s.closed)
		err = s.SetPower(PowerOff)
		s.rmu.Lock()
		defer s.rmu.Unlock()
		err = multierr.Append(err, unix.Close(s.fd))
	})
	return err
}

// Conn reads and writes whole HCP messages.
type Conn struct {
	io.ReadWriteCloser
}

func (c *Conn) ReadPacket() (Packet, error) {
	buf := make([]byte, maxMessage)
	n, err := c.Read(buf)
	if err != nil {
		return nil, err
	}
	zap.L().Debug("hci reading", zap.String("packet", fmt.Sprintf("%x", buf[:n])))
	return Unmarshal(buf[:n])
}

func (c *Conn) WritePacket(p Packet) error {
	buf, err := p.Marshal()
	if err != nil {
		return err
	}
	zap.L().Debug("hci writing", zap.String("packet", fmt.Sprintf("%x", buf)))
	_, err = c.Write(buf)
	return err
}
