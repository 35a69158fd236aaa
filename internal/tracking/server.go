package tracking

import (
	"io"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/example/wrenchly/internal/booking/domain"
)

// Server ingests mechanic position streams and writes them through the
// directory. When the deployment runs a shared geo index the directory is the
// indexed wrapper, so one write covers both stores.
type Server struct {
	directory domain.MechanicDirectory
	logger    *zap.Logger
}

// NewServer constructs a server.
func NewServer(directory domain.MechanicDirectory, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{directory: directory, logger: logger}
}

// StreamLocation consumes position reports until the client closes the
// stream. Malformed ids and unknown mechanics are skipped rather than failing
// the whole stream.
func (s *Server) StreamLocation(stream Tracking_StreamLocationServer) error {
	for {
		msg, err := stream.Recv()
		if err == io.EOF {
			return stream.SendAndClose(&Ack{})
		}
		if err != nil {
			return err
		}
		mechanicID, err := uuid.Parse(msg.MechanicId)
		if err != nil {
			s.logger.Warn("tracking: bad mechanic id", zap.String("mechanic_id", msg.MechanicId))
			continue
		}
		point := domain.GeoPoint{Lat: msg.Lat, Lng: msg.Lng}
		if err := s.directory.UpdateLocation(stream.Context(), mechanicID, point); err != nil {
			s.logger.Warn("tracking: update location", zap.String("mechanic_id", msg.MechanicId), zap.Error(err))
		}
	}
}
