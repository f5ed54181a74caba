package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/EdoardoCarlesi/MetroCpp/exchange"
)

// dialCommunicator builds the process's Communicator: a no-op local
// one for single-process (typically zoomed-in) runs, or a connected
// TCPCommunicator when --addrs names a full rank list.
func dialCommunicator(ctx context.Context, rank int, addrList string) (exchange.Communicator, error) {
	if addrList == "" {
		return exchange.NewLocalCommunicator(), nil
	}
	addrs := strings.Split(addrList, ",")
	comm, err := exchange.Connect(ctx, rank, addrs)
	if err != nil {
		return nil, fmt.Errorf("connect rank %d of %d: %w", rank, len(addrs), err)
	}
	return comm, nil
}

func snapshotKey(snap int) string {
	return "step" + strconv.Itoa(snap)
}
