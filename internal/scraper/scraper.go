package scraper

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/nba-insights/backend/internal/metrics"
	"github.com/nba-insights/backend/internal/storage/models"
	"github.com/nba-insights/backend/pkg/logger"
	"github.com/nba-insights/backend/pkg/retry"
)

// RecordSink receives scraped records. The SQLite client satisfies it.
type RecordSink interface {
	UpsertTeam(team *models.TeamRecord) error
	UpsertGame(game *models.GameRecord) error
}

// Scraper pulls franchise and schedule pages from the reference site
// and upserts them into the record store. The site throttles hard, so
// every page fetch waits a fixed delay and 429 responses back off with
// the retry policy.
type Scraper struct {
	baseURL    string
	userAgent  string
	delay      time.Duration
	httpClient *http.Client
	sink       RecordSink
	policy     retry.Policy
}

var errThrottled = fmt.Errorf("throttled by source")

func New(baseURL, userAgent string, delay time.Duration, sink RecordSink) *Scraper {
	policy := retry.DefaultPolicy()
	policy.MaxAttempts = 5
	policy.Delay = 30 * time.Second
	policy.MaxDelay = 4 * time.Minute
	policy.Retryable = func(err error) bool {
		return err == errThrottled
	}

	return &Scraper{
		baseURL:   strings.TrimRight(baseURL, "/"),
		userAgent: userAgent,
		delay:     delay,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		sink:   sink,
		policy: policy,
	}
}

// ScrapeTeams fetches the active franchise index and upserts one record
// per franchise. Returns the number of teams stored.
func (s *Scraper) ScrapeTeams(ctx context.Context) (int, error) {
	doc, err := s.fetch(ctx, s.baseURL+"/teams/")
	if err != nil {
		return 0, fmt.Errorf("failed to fetch teams index: %w", err)
	}

	count := 0
	var sinkErr error
	doc.Find("table#teams_active tbody tr").Each(func(_ int, row *goquery.Selection) {
		if sinkErr != nil || row.HasClass("thead") {
			return
		}

		nameCell := row.Find(`th[data-stat="franch_name"]`)
		if nameCell.Length() == 0 {
			return
		}
		name := strings.TrimSpace(nameCell.Text())
		if name == "" {
			return
		}

		var abbr string
		if href, ok := nameCell.Find("a").Attr("href"); ok {
			parts := strings.Split(href, "/")
			if len(parts) > 2 {
				abbr = parts[2]
			}
		}
		if abbr == "" {
			return
		}

		stat := func(statName string) string {
			return strings.TrimSpace(row.Find(fmt.Sprintf(`td[data-stat=%q]`, statName)).Text())
		}

		words := strings.Fields(name)
		city := strings.Join(words[:len(words)-1], " ")

		yearMin := stat("year_min")
		var founded *int
		if before, _, ok := strings.Cut(yearMin, "-"); ok {
			if y, err := strconv.Atoi(before); err == nil {
				founded = &y
			}
		} else if y, err := strconv.Atoi(yearMin); err == nil {
			founded = &y
		}

		team := &models.TeamRecord{
			Name:              name,
			Abbreviation:      abbr,
			City:              city,
			League:            stat("lg_id"),
			FoundedYear:       founded,
			YearMin:           yearMin,
			YearMax:           stat("year_max"),
			Games:             stat("g"),
			Wins:              stat("wins"),
			Losses:            stat("losses"),
			WinLossPct:        stat("win_loss_pct"),
			YearsPlayoffs:     stat("years_playoffs"),
			YearsDivChamps:    stat("years_division_champion"),
			YearsConfChamps:   stat("years_conference_champion"),
			YearsLeagueChamps: stat("years_league_champion"),
		}

		if err := s.sink.UpsertTeam(team); err != nil {
			sinkErr = fmt.Errorf("failed to store team %s: %w", abbr, err)
			return
		}
		count++
	})
	if sinkErr != nil {
		return count, sinkErr
	}

	metrics.RecordsScraped.WithLabelValues("team").Add(float64(count))
	logger.Info("Teams scraped", zap.Int("count", count))
	return count, nil
}

// ScrapeSeason fetches every schedule page for one season and upserts
// each game. Seasons before 1950 belong to the BAA. Returns the number
// of games stored.
func (s *Scraper) ScrapeSeason(ctx context.Context, year int) (int, error) {
	prefix := "NBA"
	if year < 1950 {
		prefix = "BAA"
	}

	seasonURL := fmt.Sprintf("%s/leagues/%s_%d_games.html", s.baseURL, prefix, year)
	doc, err := s.fetch(ctx, seasonURL)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch season %d: %w", year, err)
	}

	var monthLinks []string
	doc.Find("div#content div.filter a").Each(func(_ int, a *goquery.Selection) {
		if href, ok := a.Attr("href"); ok && strings.HasSuffix(href, ".html") {
			monthLinks = append(monthLinks, href)
		}
	})
	// Single-page seasons have no month filter.
	if len(monthLinks) == 0 {
		n, err := s.scrapeSchedule(doc, year, prefix)
		if err != nil {
			return n, err
		}
		metrics.RecordsScraped.WithLabelValues("game").Add(float64(n))
		return n, nil
	}

	total := 0
	for _, link := range monthLinks {
		monthDoc, err := s.fetch(ctx, s.baseURL+link)
		if err != nil {
			logger.Warn("Skipping month page", zap.String("link", link), zap.Error(err))
			continue
		}
		n, err := s.scrapeSchedule(monthDoc, year, prefix)
		total += n
		if err != nil {
			return total, err
		}
	}

	metrics.RecordsScraped.WithLabelValues("game").Add(float64(total))
	logger.Info("Season scraped", zap.Int("year", year), zap.String("league", prefix), zap.Int("games", total))
	return total, nil
}

func (s *Scraper) scrapeSchedule(doc *goquery.Document, year int, league string) (int, error) {
	count := 0
	var sinkErr error
	doc.Find("table#schedule tbody tr").Each(func(_ int, row *goquery.Selection) {
		if sinkErr != nil {
			return
		}

		date := strings.TrimSpace(row.Find(`th[data-stat="date_game"]`).Text())
		if date == "" {
			return
		}

		awayTeam := teamAbbrFromLink(row.Find(`td[data-stat="visitor_team_name"] a`))
		homeTeam := teamAbbrFromLink(row.Find(`td[data-stat="home_team_name"] a`))
		if awayTeam == "" || homeTeam == "" {
			return
		}

		game := &models.GameRecord{
			Date:      date,
			HomeTeam:  homeTeam,
			AwayTeam:  awayTeam,
			HomeScore: parseScore(row.Find(`td[data-stat="home_pts"]`).Text()),
			AwayScore: parseScore(row.Find(`td[data-stat="visitor_pts"]`).Text()),
			Season:    year,
			League:    league,
		}

		if err := s.sink.UpsertGame(game); err != nil {
			sinkErr = fmt.Errorf("failed to store game %s %s@%s: %w", date, awayTeam, homeTeam, err)
			return
		}
		count++
	})
	return count, sinkErr
}

func teamAbbrFromLink(a *goquery.Selection) string {
	href, ok := a.Attr("href")
	if !ok {
		return ""
	}
	parts := strings.Split(href, "/")
	if len(parts) <= 2 {
		return ""
	}
	return strings.ToUpper(parts[2])
}

func parseScore(text string) *int {
	n, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil {
		return nil
	}
	return &n
}

func (s *Scraper) fetch(ctx context.Context, pageURL string) (*goquery.Document, error) {
	var doc *goquery.Document

	err := retry.Do(ctx, s.policy, func() error {
		time.Sleep(s.delay)

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
		if err != nil {
			return err
		}
		req.Header.Set("User-Agent", s.userAgent)
		req.Header.Set("Accept-Language", "en-US,en;q=0.5")

		resp, err := s.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusTooManyRequests {
			logger.Warn("Source throttled scrape, backing off", zap.String("url", pageURL))
			return errThrottled
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("unexpected status %d for %s", resp.StatusCode, pageURL)
		}

		doc, err = goquery.NewDocumentFromReader(resp.Body)
		if err != nil {
			return fmt.Errorf("failed to parse HTML: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}
