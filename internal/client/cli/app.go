package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/dmitrijs2005/mockpay/internal/client/client"
	"github.com/dmitrijs2005/mockpay/internal/client/config"
	pb "github.com/dmitrijs2005/mockpay/internal/proto"
)

// apiClient is the server surface the commands need; *client.GRPCClient
// implements it.
type apiClient interface {
	Register(ctx context.Context, email string, password []byte) error
	Login(ctx context.Context, email string, password []byte) error
	Refresh(ctx context.Context) error
	Charge(ctx context.Context, in client.ChargeInput) (*pb.TransactionResponse, error)
	Refund(ctx context.Context, in client.RefundInput) (*pb.RefundResponse, error)
	LoggedIn() bool
	Close() error
}

type App struct {
	config *config.Config
	api    apiClient
	reader *bufio.Reader
	out    io.Writer
	email  string
}

func NewApp(c *config.Config) (*App, error) {
	api, err := client.NewMockPayClient(c.ServerEndpointAddr)
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", c.ServerEndpointAddr, err)
	}

	return newApp(c, api, os.Stdin, os.Stdout), nil
}

func newApp(c *config.Config, api apiClient, in io.Reader, out io.Writer) *App {
	return &App{config: c, api: api, reader: bufio.NewReader(in), out: out}
}

// Run starts the REPL and closes the connection when it ends.
func (a *App) Run(ctx context.Context) error {
	defer a.api.Close()

	fmt.Fprintf(a.out, "mockpay client, server %s. Type help for commands.\n", a.config.ServerEndpointAddr)
	runREPL(ctx, a, a.status, a.reader)
	return nil
}

func (a *App) isLoggedIn() bool {
	return a.api.LoggedIn()
}

func (a *App) status() string {
	if a.isLoggedIn() {
		return a.email
	}
	return "guest"
}

func (a *App) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if a.config.RequestTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, a.config.RequestTimeout)
}
