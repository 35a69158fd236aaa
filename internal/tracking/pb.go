package tracking

import "google.golang.org/grpc"

// MechanicLocation is a single streamed position report.
type MechanicLocation struct {
	MechanicId string
	Lat        float64
	Lng        float64
	Accuracy   float64
	Ts         int64
}

// Ack closes the stream.
type Ack struct{}

// TrackingServer defines the gRPC contract.
type TrackingServer interface {
	StreamLocation(Tracking_StreamLocationServer) error
}

// RegisterTrackingServer registers the service implementation.
func RegisterTrackingServer(s *grpc.Server, srv TrackingServer) {
	s.RegisterService(&grpc.ServiceDesc{
		ServiceName: "tracking.Tracking",
		HandlerType: (*TrackingServer)(nil),
		Streams: []grpc.StreamDesc{{
			StreamName:    "StreamLocation",
			Handler:       _Tracking_StreamLocation_Handler,
			ServerStreams: true,
			ClientStreams: true,
		}},
	}, srv)
}

// Tracking_StreamLocationServer defines the client-streaming interface.
type Tracking_StreamLocationServer interface {
	grpc.ServerStream
	SendAndClose(*Ack) error
	Recv() (*MechanicLocation, error)
}

func _Tracking_StreamLocation_Handler(srv interface{}, stream grpc.ServerStream) error {
	return srv.(TrackingServer).StreamLocation(&trackingStreamServer{ServerStream: stream})
}

type trackingStreamServer struct {
	grpc.ServerStream
}

func (s *trackingStreamServer) SendAndClose(*Ack) error { return nil }

func (s *trackingStreamServer) Recv() (*MechanicLocation, error) {
	msg := new(MechanicLocation)
	if err := s.ServerStream.RecvMsg(msg); err != nil {
		return nil, err
	}
	return msg, nil
}
