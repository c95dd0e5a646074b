package actuator

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/crypto/ssh"

	"github.com/ultrasense/ultrasense-go/internal/conf"
	"github.com/ultrasense/ultrasense-go/internal/errors"
	"github.com/ultrasense/ultrasense-go/internal/logging"
)

// SSHController runs the configured on/off shell commands on the acquisition
// board over SSH. The connection is established lazily on the first command
// and re-established after a failure.
type SSHController struct {
	cfg    conf.ActuatorSettings
	logger *slog.Logger

	mu     sync.Mutex
	client *ssh.Client
	on     bool
}

// NewSSH creates a controller for the given actuator settings. No connection
// is made until the first command.
func NewSSH(cfg conf.ActuatorSettings) *SSHController {
	return &SSHController{
		cfg:    cfg,
		logger: logging.ForService("actuator"),
	}
}

// On runs the configured on-command.
func (s *SSHController) On(ctx context.Context) error {
	return s.run(ctx, s.cfg.OnCommand, true)
}

// Off runs the configured off-command.
func (s *SSHController) Off(ctx context.Context) error {
	return s.run(ctx, s.cfg.OffCommand, false)
}

// IsOn reports the last state successfully commanded.
func (s *SSHController) IsOn() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.on
}

// Close shuts down the SSH connection if one is open.
func (s *SSHController) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client == nil {
		return nil
	}
	err := s.client.Close()
	s.client = nil
	return err
}

func (s *SSHController) run(ctx context.Context, command string, on bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	if err := s.runLocked(ctx, command); err != nil {
		// Drop the connection so the next command reconnects.
		if s.client != nil {
			s.client.Close()
			s.client = nil
		}
		return errors.New(err).
			Component("actuator").
			Category(errors.CategoryActuator).
			Context("command", command).
			Timing("ssh-command", time.Since(start)).
			Build()
	}

	s.on = on
	s.logger.Debug("actuator command completed",
		"on", on,
		"duration_ms", time.Since(start).Milliseconds())
	return nil
}

func (s *SSHController) runLocked(ctx context.Context, command string) error {
	client, err := s.connectLocked(ctx)
	if err != nil {
		return err
	}

	session, err := client.NewSession()
	if err != nil {
		return fmt.Errorf("opening ssh session: %w", err)
	}
	defer session.Close()

	// session.Run has no context support; bridge it through a goroutine so
	// a stuck channel cannot block the caller past its deadline.
	done := make(chan error, 1)
	go func() {
		done <- session.Run(command)
	}()

	timeout := time.NewTimer(s.cfg.CommandTimeout)
	defer timeout.Stop()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("running %q: %w", command, err)
		}
		return nil
	case <-timeout.C:
		return fmt.Errorf("running %q: timed out after %s", command, s.cfg.CommandTimeout)
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *SSHController) connectLocked(ctx context.Context) (*ssh.Client, error) {
	if s.client != nil {
		return s.client, nil
	}

	config := &ssh.ClientConfig{
		User: s.cfg.User,
		Auth: []ssh.AuthMethod{ssh.Password(s.cfg.Password)},
		// The board is on a direct link with a factory host key.
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         s.cfg.CommandTimeout,
	}

	type connResult struct {
		client *ssh.Client
		err    error
	}
	resultChan := make(chan connResult, 1)

	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	go func() {
		client, err := ssh.Dial("tcp", addr, config)
		resultChan <- connResult{client, err}
	}()

	select {
	case <-ctx.Done():
		// The dial keeps going after we stop waiting; reap its connection so
		// a late success does not leak a TCP session.
		go func() {
			if result := <-resultChan; result.client != nil {
				result.client.Close()
			}
		}()
		return nil, ctx.Err()
	case result := <-resultChan:
		if result.err != nil {
			return nil, fmt.Errorf("connecting to %s: %w", addr, result.err)
		}
		s.client = result.client
		s.logger.Info("actuator channel connected", "addr", addr)
		return s.client, nil
	}
}
