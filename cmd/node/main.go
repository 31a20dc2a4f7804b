// Command node runs a single gossip peer: a fresh wallet, a WebSocket
// gossip transport bound to a port, and an optional set of peers to dial on
// startup.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/darkness-chain/pedagogical-node/internal/account"
	"github.com/darkness-chain/pedagogical-node/internal/config"
	"github.com/darkness-chain/pedagogical-node/internal/controller"
	"github.com/darkness-chain/pedagogical-node/internal/node"
	"github.com/darkness-chain/pedagogical-node/internal/transport/wsgossip"
)

func main() {
	if err := run(); err != nil {
		slog.Error("node exited with error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	peersFlag := flag.String("peers", "", "comma-separated host:port peers to dial on startup")
	walletDir := flag.String("wallet-dir", "wallets", "directory wallet files are written under")
	flag.Parse()

	port := 5000
	if flag.NArg() > 0 {
		p, err := strconv.Atoi(flag.Arg(0))
		if err != nil {
			return fmt.Errorf("invalid port %q: %w", flag.Arg(0), err)
		}
		port = p
	}

	cfg := config.FromEnv()
	cfg.PublishPort = port

	acct, err := account.New()
	if err != nil {
		return fmt.Errorf("generate wallet: %w", err)
	}
	if err := os.MkdirAll(*walletDir, 0o755); err != nil {
		return fmt.Errorf("create wallet dir: %w", err)
	}
	walletPath := filepath.Join(*walletDir, acct.Address()+".json")
	if err := acct.ToFile(walletPath); err != nil {
		return fmt.Errorf("persist wallet: %w", err)
	}
	defer func() {
		if err := os.Remove(walletPath); err != nil && !os.IsNotExist(err) {
			slog.Warn("could not remove wallet file on exit", "path", walletPath, "error", err)
		}
	}()

	transport := wsgossip.New()
	if err := transport.Bind(fmt.Sprintf(":%d", cfg.PublishPort)); err != nil {
		return fmt.Errorf("bind gossip transport: %w", err)
	}
	defer transport.Close()

	n := node.New(acct, transport, transport, cfg)
	n.SetSelfEndpoint(fmt.Sprintf("127.0.0.1:%d", cfg.PublishPort))
	ctrl := controller.New(n)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go n.Run(ctx)
	go logEvents(ctx, ctrl)

	for _, peer := range splitPeers(*peersFlag) {
		if err := transport.Dial(peer); err != nil {
			slog.Warn("could not dial peer", "peer", peer, "error", err)
			continue
		}
		if err := ctrl.AddPeer(ctx, peer); err != nil {
			slog.Warn("add_peer failed", "peer", peer, "error", err)
		}
	}

	slog.Info("node listening", "address", acct.Address(), "port", cfg.PublishPort)
	<-ctx.Done()
	slog.Info("shutting down")
	return nil
}

func splitPeers(flag string) []string {
	if flag == "" {
		return nil
	}
	parts := strings.Split(flag, ",")
	peers := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			peers = append(peers, p)
		}
	}
	return peers
}

func logEvents(ctx context.Context, ctrl *controller.Controller) {
	for {
		select {
		case evt, ok := <-ctrl.Events():
			if !ok {
				return
			}
			switch e := evt.(type) {
			case node.TxAccepted:
				slog.Info("transaction accepted", "sender", e.Tx.Sender, "receiver", e.Tx.Receiver, "amount", e.Tx.Amount)
			case node.BlockAccepted:
				slog.Info("block accepted", "index", e.Block.Index)
			case node.ChainAdopted:
				slog.Info("chain adopted", "head_index", e.Head.Index)
			}
		case <-ctx.Done():
			return
		}
	}
}
