package telemetry

import (
	"context"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/hulks-go/motioncore/internal/cycler"
	"github.com/hulks-go/motioncore/internal/watch"
)

// Source is one cycler's published database, tagged with the name used to
// prefix its AdditionalOutput paths in a Snapshot.
type Source struct {
	CyclerName string
	Published  *watch.Channel[*cycler.Database]
}

// Server serves a single debug page and a websocket that streams Snapshots
// fanned in from every subscribed cycler's published database. It is
// intentionally minimal: one page, best-effort fan-out, no auth. It must
// never be wired onto a cycler's tick path.
type Server struct {
	addr    string
	sources []Source
	log     *slog.Logger
	mux     *mux.Router
}

// NewServer builds a Server that watches sources for new publications and
// fans them into snapshots broadcast to every connected websocket client.
func NewServer(ctx context.Context, addr string, sources []Source, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	s := &Server{addr: addr, sources: sources, log: log, mux: mux.NewRouter()}

	updates := s.fanIn(ctx)
	broadcast := newBroadcaster(ctx, updates)

	s.mux.HandleFunc("/", s.handleIndex)
	s.mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		cli, err := newClient(broadcast, w, r)
		if err != nil {
			return
		}
		if err := cli.Serve(); err != nil {
			s.log.Debug("telemetry client disconnected", "error", err)
		}
	})
	return s
}

// ListenAndServe blocks serving http until ctx is canceled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{Addr: s.addr, Handler: s.mux}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()

	select {
	case <-ctx.Done():
		return srv.Shutdown(context.Background())
	case err := <-errc:
		return err
	}
}

// fanIn watches every source for new publications and emits a full
// Snapshot of their AdditionalOutputs whenever any of them changes.
func (s *Server) fanIn(ctx context.Context) <-chan Snapshot {
	out := make(chan Snapshot, 1)
	ages := make([]uint64, len(s.sources))

	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			default:
			}

			changed := false
			snap := Snapshot{}
			for i, src := range s.sources {
				db, age := src.Published.Latest()
				if age > ages[i] {
					ages[i] = age
					changed = true
				}
				if db != nil {
					for path, val := range db.AdditionalOutputs {
						snap[src.CyclerName+"."+path] = val
					}
				}
			}
			if changed {
				select {
				case out <- snap:
				case <-ctx.Done():
					return
				default:
				}
			}
		}
	}()
	return out
}

const indexHTML = `
<!DOCTYPE html>
<html>
<head><title>motioncore telemetry</title></head>
<body>
<pre id="snapshot">waiting for data...</pre>
<script>
const ws = new WebSocket("ws://" + location.host + "/ws");
ws.onmessage = function(event) {
	document.getElementById("snapshot").textContent = JSON.stringify(JSON.parse(event.data), null, 2);
};
</script>
</body>
</html>
`

var indexTemplate = template.Must(template.New("index").Parse(indexHTML))

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	_ = indexTemplate.Execute(w, nil)
}
