package main

import (
	"bufio"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"unilink/internal/flog"
	"unilink/internal/link"
	"unilink/internal/link/dispatch"
	"unilink/internal/link/udp"
)

func listenCmd() *cobra.Command {
	var locator string
	var verbose bool

	cmd := &cobra.Command{
		Use:   "listen",
		Short: "bind a listener and print the locators it accepts traffic on",
		RunE: func(cmd *cobra.Command, args []string) error {
			if verbose {
				flog.SetLevel(int(flog.Debug))
			} else {
				flog.SetLevel(int(flog.Info))
			}
			defer flog.Close()

			ep, err := link.NewEndPoint(locator)
			if err != nil {
				return err
			}

			sink := link.NewNewLinkSink(8)
			mgr, err := dispatch.LinkManagerBuilderUnicast(sink, ep.Locator().Scheme, udp.Config{})
			if err != nil {
				return err
			}

			bound, err := mgr.NewListener(ep)
			if err != nil {
				return err
			}
			fmt.Printf("listening on %s\n", bound)
			for _, l := range mgr.GetLocators() {
				fmt.Printf("  accepts: %s\n", l)
			}

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

			go func() {
				for peer := range sink.Chan() {
					go echoLink(peer)
				}
			}()

			<-sigCh
			return mgr.DelListener(ep)
		},
	}
	cmd.Flags().StringVarP(&locator, "locator", "l", "udp/0.0.0.0:7447", "locator to bind")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	return cmd
}

// echoLink reads datagrams from a newly accepted link and prints them,
// for as long as the peer keeps sending.
func echoLink(l link.Link) {
	defer l.Close()
	buf := make([]byte, l.MTU())
	for {
		n, err := l.Read(buf)
		if err != nil {
			flog.Debugf("link %s -> %s closed: %v", l.Src(), l.Dst(), err)
			return
		}
		fmt.Printf("[%s] %s\n", l.Dst(), string(buf[:n]))
	}
}

func dialCmd() *cobra.Command {
	var locator string

	cmd := &cobra.Command{
		Use:   "dial",
		Short: "dial a peer and send stdin to it one line at a time",
		RunE: func(cmd *cobra.Command, args []string) error {
			flog.SetLevel(int(flog.Info))
			defer flog.Close()

			ep, err := link.NewEndPoint(locator)
			if err != nil {
				return err
			}

			sink := link.NewNewLinkSink(1)
			mgr, err := dispatch.LinkManagerBuilderUnicast(sink, ep.Locator().Scheme, udp.Config{})
			if err != nil {
				return err
			}

			l, err := mgr.NewLink(ep)
			if err != nil {
				return err
			}
			defer l.Close()

			fmt.Printf("dialed %s -> %s\n", l.Src(), l.Dst())
			scanner := bufio.NewScanner(os.Stdin)
			for scanner.Scan() {
				if err := l.WriteAll(scanner.Bytes()); err != nil {
					return err
				}
			}
			return scanner.Err()
		},
	}
	cmd.Flags().StringVarP(&locator, "locator", "l", "", "peer locator to dial")
	cmd.MarkFlagRequired("locator")
	return cmd
}
