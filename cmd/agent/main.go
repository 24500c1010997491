// Command agent simulates the mechanic device side: it logs in, starts a GPS
// watch (with the city-center fallback when no fix is configured), and reports
// the position to the service until interrupted.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"roadside-service/internal/geo"
	"roadside-service/internal/location"
)

func main() {
	var (
		serverURL = flag.String("server", env("AGENT_SERVER", "http://localhost:8080"), "service base URL")
		email     = flag.String("email", env("AGENT_EMAIL", ""), "mechanic email")
		password  = flag.String("password", env("AGENT_PASSWORD", ""), "mechanic password")
		interval  = flag.Duration("interval", 15*time.Second, "location report interval")
	)
	flag.Parse()

	if *email == "" || *password == "" {
		log.Fatal("email and password are required")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client := &agentClient{base: *serverURL, hc: &http.Client{Timeout: 10 * time.Second}}

	token, mechanicID, err := client.login(ctx, *email, *password)
	if err != nil {
		log.Fatal("login failed: ", err)
	}
	client.token = token
	log.Printf("[agent] logged in as mechanic %s", mechanicID)

	fallback := geo.Point{Lat: 4.7110, Lng: -74.0721}
	provider := deviceProvider(fallback)

	var watcher location.Watcher
	err = watcher.Start(ctx, provider, fallback, *interval, func(pt geo.Point) {
		if err := client.reportLocation(ctx, mechanicID, pt); err != nil {
			log.Printf("[agent] report failed: %v", err)
			return
		}
		log.Printf("[agent] reported position %.4f,%.4f", pt.Lat, pt.Lng)
	})
	if err != nil {
		log.Fatal(err)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("[agent] stopping watch...")
	watcher.Stop()
}

// deviceProvider reads a fixed position from the environment when set,
// otherwise behaves as permission-denied so the fallback kicks in.
func deviceProvider(fallback geo.Point) location.Provider {
	latStr, lngStr := os.Getenv("AGENT_LAT"), os.Getenv("AGENT_LNG")
	if latStr == "" || lngStr == "" {
		return location.Unavailable{}
	}
	lat, err1 := strconv.ParseFloat(latStr, 64)
	lng, err2 := strconv.ParseFloat(lngStr, 64)
	if err1 != nil || err2 != nil {
		return location.Unavailable{}
	}
	return location.Static{Point: geo.Point{Lat: lat, Lng: lng}}
}

type agentClient struct {
	base  string
	token string
	hc    *http.Client
}

func (c *agentClient) login(ctx context.Context, email, password string) (token, mechanicID string, err error) {
	body, _ := json.Marshal(map[string]string{"email": email, "password": password})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/mechanics/login", bytes.NewReader(body))
	if err != nil {
		return "", "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		return "", "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", "", fmt.Errorf("login returned %d", resp.StatusCode)
	}

	var out struct {
		Token    string `json:"token"`
		Mechanic struct {
			ID string `json:"id"`
		} `json:"mechanic"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", "", err
	}
	return out.Token, out.Mechanic.ID, nil
}

func (c *agentClient) reportLocation(ctx context.Context, mechanicID string, pt geo.Point) error {
	body, _ := json.Marshal(map[string]float64{"lat": pt.Lat, "lng": pt.Lng})
	url := fmt.Sprintf("%s/mechanics/%s/location", c.base, mechanicID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("location report returned %d", resp.StatusCode)
	}
	return nil
}

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
