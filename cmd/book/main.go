package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/appflows/booking-flow/internal/config"
	"github.com/appflows/booking-flow/internal/flow"
	"github.com/appflows/booking-flow/internal/gateway"
	"github.com/appflows/booking-flow/internal/schedule"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	email := flag.String("email", "demo@booking.local", "account email")
	password := flag.String("password", "123456", "account password")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	session, err := gateway.SignIn(ctx, cfg.APIBaseURL, cfg.HTTPTimeout, *email, *password)
	if err != nil {
		log.Fatalf("sign in: %v", err)
	}

	gw := gateway.NewClient(cfg.APIBaseURL, session, cfg.HTTPTimeout)
	stdin := bufio.NewScanner(os.Stdin)

	// The mobile flow is entered with a provider already chosen on the
	// previous screen; here the choice happens up front instead.
	providers, err := gw.ListProviders(ctx)
	if err != nil {
		log.Fatalf("list providers: %v", err)
	}
	if len(providers) == 0 {
		log.Fatal("no providers available, run the seed command first")
	}

	fmt.Println("Providers:")
	for i, p := range providers {
		fmt.Printf("  [%d] %s\n", i+1, p.Name)
	}
	providerID := providers[promptNumber(stdin, "Pick a provider", 1, len(providers))-1].ID

	updates := make(chan flow.Snapshot, 16)
	fetchErrs := make(chan error, 16)

	f := flow.New(gw, flow.Options{
		ProviderID: providerID,
		OnUpdate:   func(s flow.Snapshot) { updates <- s },
		OnError:    func(err error) { fetchErrs <- err },
	})
	go f.Run(ctx)

	wantDate := flow.DateOf(time.Now())
	if date, ok := promptDate(stdin); ok {
		wantDate = date
		f.SelectDate(date)
	}

	snap := waitFor(updates, fetchErrs, func(s flow.Snapshot) bool {
		return s.Date == wantDate && len(s.Availability) > 0
	})

	fmt.Printf("\nAvailability for %s:\n", snap.Date)
	fmt.Println("Morning:")
	printSlots(snap.Morning)
	fmt.Println("Afternoon:")
	printSlots(snap.Afternoon)

	hour := promptNumber(stdin, "Pick an hour (0-23)", 0, 23)
	f.SelectHour(hour)

	result, err := f.Submit(ctx)
	if err != nil {
		// Selection state is preserved; rerunning with the same choices is
		// a retry.
		log.Fatalf("scheduling error: there was an error trying to schedule in this date, please try again later (%v)", err)
	}

	when := time.UnixMilli(result.DateMillis)
	fmt.Printf("\nSuccessfully scheduled!\n%s.\n", when.Format("Monday, January 02, 2006 at 15:04"))
}

func printSlots(slots []schedule.DisplaySlot) {
	if len(slots) == 0 {
		fmt.Println("  (none)")
		return
	}
	for _, s := range slots {
		marker := " "
		if !s.Available {
			marker = "x"
		}
		fmt.Printf("  [%s] %s\n", marker, s.Label)
	}
}

func waitFor(updates <-chan flow.Snapshot, fetchErrs <-chan error, ready func(flow.Snapshot) bool) flow.Snapshot {
	for {
		select {
		case snap := <-updates:
			if ready(snap) {
				return snap
			}
		case err := <-fetchErrs:
			log.Fatalf("fetch error: %v", err)
		case <-time.After(30 * time.Second):
			log.Fatal("timed out waiting for availability")
		}
	}
}

func promptNumber(stdin *bufio.Scanner, label string, min, max int) int {
	for {
		fmt.Printf("%s: ", label)
		if !stdin.Scan() {
			os.Exit(1)
		}
		n, err := strconv.Atoi(strings.TrimSpace(stdin.Text()))
		if err == nil && n >= min && n <= max {
			return n
		}
		fmt.Println("invalid choice")
	}
}

func promptDate(stdin *bufio.Scanner) (flow.Date, bool) {
	fmt.Print("Date (YYYY-MM-DD, empty for today): ")
	if !stdin.Scan() {
		os.Exit(1)
	}
	text := strings.TrimSpace(stdin.Text())
	if text == "" {
		return flow.Date{}, false
	}

	t, err := time.ParseInLocation("2006-01-02", text, time.Local)
	if err != nil {
		fmt.Println("unparseable date, keeping today")
		return flow.Date{}, false
	}

	return flow.DateOf(t), true
}
