package channel

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/mikey/llm-mailbot/internal/ports"
)

// CLIChannel reads one message per line and writes replies to out.
// Every line comes from the same initiator.
type CLIChannel struct {
	handler   ports.MessageHandler
	logger    *zap.Logger
	initiator string
	in        io.Reader

	mu  sync.Mutex
	out io.Writer

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// NewCLIChannel creates a line-oriented channel
func NewCLIChannel(handler ports.MessageHandler, initiator string, in io.Reader, out io.Writer, logger *zap.Logger) *CLIChannel {
	ctx, cancel := context.WithCancel(context.Background())
	return &CLIChannel{
		handler:   handler,
		logger:    logger,
		initiator: initiator,
		in:        in,
		out:       out,
		ctx:       ctx,
		cancel:    cancel,
		done:      make(chan struct{}),
	}
}

// Start begins reading input
func (c *CLIChannel) Start() error {
	c.logger.Info("CLI channel starting", zap.String("initiator", c.initiator))
	go c.loop()
	return nil
}

func (c *CLIChannel) loop() {
	defer close(c.done)

	scanner := bufio.NewScanner(c.in)
	for scanner.Scan() {
		if c.ctx.Err() != nil {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.EqualFold(line, "quit") || strings.EqualFold(line, "exit") {
			return
		}
		c.write(c.handler.Handle(c.ctx, c.initiator, line))
	}
	if err := scanner.Err(); err != nil {
		c.logger.Error("Reading input failed", zap.Error(err))
	}
}

// Done is closed when the input ends
func (c *CLIChannel) Done() <-chan struct{} {
	return c.done
}

// Stop cancels in-flight work. A read blocked on the input is abandoned.
func (c *CLIChannel) Stop() error {
	c.cancel()
	return nil
}

// Deliver prints an unsolicited message
func (c *CLIChannel) Deliver(_ context.Context, initiator, text string) error {
	if initiator != "" && initiator != c.initiator {
		c.write(fmt.Sprintf("[to %s] %s", initiator, text))
		return nil
	}
	c.write(text)
	return nil
}

func (c *CLIChannel) write(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.out, text)
}
