// Command search drives the hotel_finder proxy the way the browser form does: it searches one
// or more locations concurrently and can capture a lead for the nearest results.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"hotel_finder/internal/adapters/observability"
	"hotel_finder/internal/adapters/proxyclient"
	"hotel_finder/internal/app"
	"hotel_finder/internal/shared"
)

func main() {
	cfg := shared.LoadOptional()
	log.Logger = observability.NewLogger(cfg.AppEnv)

	var (
		proxy     = flag.String("proxy", "http://localhost:8080", "hotel_finder base URL")
		locations = flag.String("locations", "", "comma-separated locations to search")
		prefill   = flag.String("prefill", "", "page query string to prefill from, e.g. email=a@b.co&currency=EUR")
		checkIn   = flag.String("checkin", "", "check-in date YYYY-MM-DD")
		checkOut  = flag.String("checkout", "", "check-out date YYYY-MM-DD")
		adults    = flag.Int("adults", 1, "number of adults")
		rooms     = flag.Int("rooms", 1, "number of rooms")
		currency  = flag.String("currency", "", "display currency (ISO code)")
		email     = flag.String("email", "", "email for lead capture")
		pick      = flag.Int("select", 0, "capture a lead with the N nearest hotels (needs -email)")
		accept    = flag.Bool("track-flights", false, "accept the flight-tracking prompt after capture")
		workers   = flag.Int("workers", 4, "concurrent searches")
		timeout   = flag.Duration("timeout", 2*time.Minute, "overall deadline")
	)
	flag.Parse()

	locs := splitList(*locations)
	if len(locs) == 0 {
		log.Fatal().Msg("-locations is required")
	}
	q, err := url.ParseQuery(*prefill)
	if err != nil {
		log.Fatal().Err(err).Msg("bad -prefill")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	client := proxyclient.New(*proxy, *timeout)
	searcher := app.NewSearcher(client)

	log.Info().Str("proxy", *proxy).Int("locations", len(locs)).Int("workers", *workers).Msg("search starting")

	enc := json.NewEncoder(os.Stdout)
	var outMu sync.Mutex
	sem := semaphore.NewWeighted(int64(max(*workers, 1)))
	var wg sync.WaitGroup

	for _, loc := range locs {
		// acquire before launching the goroutine; release inside it
		if err := sem.Acquire(ctx, 1); err != nil {
			log.Error().Err(err).Msg("semaphore acquire failed")
			break
		}

		wg.Add(1)
		go func(loc string) {
			defer wg.Done()
			defer sem.Release(1)

			s := app.NewSession(searcher, client, client, app.SessionConfig{
				FlightTrackerURL: cfg.FlightTrackerURL,
				Limit:            cfg.ResultLimit,
			})
			s.Prefill(q)
			f := s.Form()
			f.Location = loc
			f.CheckIn = firstNonEmpty(*checkIn, f.CheckIn)
			f.CheckOut = firstNonEmpty(*checkOut, f.CheckOut)
			f.Currency = strings.ToUpper(firstNonEmpty(*currency, f.Currency))
			f.Email = firstNonEmpty(*email, f.Email)
			f.Adults, f.Rooms = *adults, *rooms

			res, err := s.Submit(ctx, f)
			if err != nil {
				log.Warn().Err(err).Str("location", loc).Msg("search failed")
			}
			outMu.Lock()
			_ = enc.Encode(map[string]any{"location": loc, "state": s.State(), "result": res})
			outMu.Unlock()

			if *pick <= 0 || s.State() != app.StateResults {
				return
			}
			for i, c := range res.Cards {
				if i >= *pick {
					break
				}
				_ = s.Toggle(c.HotelID, true)
			}
			receipt, err := s.CaptureLead(ctx)
			if err != nil {
				log.Error().Err(err).Str("location", loc).Msg("lead capture failed")
				return
			}
			next, _ := s.Decide(*accept)
			log.Info().Str("location", loc).Str("token", receipt.Token).Str("next", next).Msg("lead captured")
		}(loc)
	}

	wg.Wait()
	log.Info().Msg("search completed")
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
