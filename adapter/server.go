package adapter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"

	"github.com/fansqz/debug-adapter/protocol"
	"github.com/fansqz/debug-adapter/utils/gosync"
	"github.com/sirupsen/logrus"
)

// Server 监听tcp端口，每个连接创建一个Session
type Server struct {
	opts     Options
	log      *logrus.Entry
	listener net.Listener

	mu       sync.Mutex
	sessions map[*Session]struct{}
	wg       sync.WaitGroup
}

func NewServer(opts Options) *Server {
	log := opts.Log
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Server{
		opts:     opts,
		log:      log,
		sessions: make(map[*Session]struct{}),
	}
}

// Listen 绑定地址，port为0时由系统分配
func (s *Server) Listen(address string) error {
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", address, err)
	}
	s.listener = listener
	s.log.Infof("[Server] started listening at: %s", listener.Addr().String())
	return nil
}

// Addr 实际监听的地址
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Serve 接受连接直到ctx结束，返回前关闭所有会话
func (s *Server) Serve(ctx context.Context) error {
	if s.listener == nil {
		return errors.New("server is not listening")
	}
	gosync.Go(ctx, func(ctx context.Context) {
		<-ctx.Done()
		_ = s.listener.Close()
	})
	defer s.shutdown()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			s.log.Warnf("[Server] connection failed: %v", err)
			continue
		}
		s.log.Infof("[Server] accept connection from %s", conn.RemoteAddr())
		s.serveSession(protocol.NewConnTransport(conn))
	}
}

// ServeStdio 通过标准输入输出和前端通信，只有一个会话
func (s *Server) ServeStdio(ctx context.Context, stdin io.ReadCloser, stdout io.WriteCloser) error {
	sess := NewSession(protocol.NewStdioTransport(stdin, stdout), s.opts)
	gosync.Go(ctx, func(ctx context.Context) {
		<-ctx.Done()
		sess.Close()
	})
	return sess.Serve()
}

func (s *Server) serveSession(transport protocol.Transport) {
	sess := NewSession(transport, s.opts)
	s.mu.Lock()
	s.sessions[sess] = struct{}{}
	s.mu.Unlock()

	s.wg.Add(1)
	gosync.Go(context.Background(), func(ctx context.Context) {
		defer s.wg.Done()
		if err := sess.Serve(); err != nil {
			s.log.Errorf("[Server] session error: %v", err)
		}
		s.mu.Lock()
		delete(s.sessions, sess)
		s.mu.Unlock()
	})
}

func (s *Server) shutdown() {
	s.mu.Lock()
	sessions := make([]*Session, 0, len(s.sessions))
	for sess := range s.sessions {
		sessions = append(sessions, sess)
	}
	s.mu.Unlock()
	for _, sess := range sessions {
		sess.Close()
	}
	s.wg.Wait()
	s.log.Infof("[Server] stopped")
}
