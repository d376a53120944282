package chat

import (
	"context"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"golang.org/x/sync/errgroup"
)

// Run initializes the chat and serves the telnet console.
// It blocks until the process receives a termination signal.
func Run() {
	lw, err := InitLog()
	if err != nil {
		log.Fatal("{←|⇶} ", err)
	}
	defer lw.Close()

	if err := LoadConfig(); err != nil {
		log.Fatal("{←|⇶} ", err)
	}

	if !Conf().NoPlugins {
		if err := LoadPlugins(); err != nil {
			log.Print("{←|⇶} ", err)
		}
	}

	backend, err := OpenPrefsBackend(Conf().PrefsBackend, Conf().PrefsDSN)
	if err != nil {
		log.Fatal("{←|⇶} ", err)
	}

	prefs, err := NewPreferences(backend)
	if err != nil {
		log.Fatal("{←|⇶} ", err)
	}

	opts := Options{
		Config:  Conf(),
		Prefs:   prefs,
		Console: NewTermConsole(os.Stdout),
	}

	if Conf().Relay.Enabled {
		opts.Transport = NewWSTransport(Conf().Relay.URL, Conf().Relay.Channel)
	}

	d := NewDispatcher(opts)
	d.Start()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return d.ServeTelnet(ctx, Conf().TelnetAddr)
	})

	g.Go(func() error {
		reload := make(chan os.Signal, 1)
		signal.Notify(reload, syscall.SIGUSR1)
		defer signal.Stop(reload)

		for {
			select {
			case <-ctx.Done():
				return nil
			case <-reload:
				log.Print("{←|⇶} reload")
				if err := d.Reload(); err != nil {
					log.Print("{←|⇶} ", err)
				}
			}
		}
	})

	if err := g.Wait(); err != nil {
		log.Print("{←|⇶} ", err)
	}

	shutdown(d)
}

// shutdown disconnects everyone and stops d.
func shutdown(d *Dispatcher) {
	clts := d.Roster().All()

	var wg sync.WaitGroup
	wg.Add(len(clts))

	for _, p := range clts {
		go func(p Participant) {
			defer wg.Done()
			p.Kick("Chat shutting down.")
		}(p)
	}

	wg.Wait()

	if err := d.Close(); err != nil {
		log.Print("{←|⇶} ", err)
	}

	log.Print("{←|⇶} shut down")
}
