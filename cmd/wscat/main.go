// Command wscat is a small interactive WebSocket client: lines from stdin
// are sent as text messages and received messages are printed to stdout.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/merrellb/websockets"
)

func main() {
	origin := flag.String("origin", "", "Origin header to send")
	subprotocols := flag.String("subprotocols", "", "comma separated subprotocols to offer")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: wscat [flags] <ws[s]://host[:port]/path>")
		os.Exit(2)
	}
	uri := flag.Arg(0)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	opts := &websockets.DialOptions{
		Origin: *origin,
	}
	if *subprotocols != "" {
		opts.Subprotocols = strings.Split(*subprotocols, ",")
	}

	c, err := websockets.Dial(ctx, uri, opts)
	if err != nil {
		logrus.Fatalf("dial %v: %v", uri, err)
	}
	defer c.Close(websockets.StatusNormalClosure, "")

	logrus.WithFields(logrus.Fields{
		"subprotocol": c.Subprotocol(),
		"extensions":  c.Extensions(),
	}).Info("connected")

	go func() {
		for {
			_, p, err := c.Read(ctx)
			if err != nil {
				logrus.Infof("connection closed: %v", err)
				stop()
				return
			}
			fmt.Printf("< %s\n", p)
		}
	}()

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		if err := c.Write(ctx, websockets.MessageText, scanner.Bytes()); err != nil {
			logrus.Errorf("write: %v", err)
			break
		}
	}
	if err := scanner.Err(); err != nil {
		logrus.Errorf("stdin: %v", err)
	}
}
