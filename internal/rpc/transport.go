package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/encoding"
	"google.golang.org/grpc/status"

	"github.com/fedehr/fedehr/internal/rpc/wire"
)

// ServiceName is the fully qualified RPC service name.
const ServiceName = "fedehr.PatientService"

// codecName selects JSON framing for the patient service. The server forces
// it, clients request it via the call content-subtype.
const codecName = "json"

type jsonCodec struct{}

func (jsonCodec) Marshal(v interface{}) ([]byte, error) { return json.Marshal(v) }

func (jsonCodec) Unmarshal(data []byte, v interface{}) error { return json.Unmarshal(data, v) }

func (jsonCodec) Name() string { return codecName }

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

// PatientAPI is the patient-record RPC surface. PatientService implements it
// in-process; Client implements it over a connection. The gateway programs
// against this interface and does not care which one it holds.
type PatientAPI interface {
	CreatePatient(ctx context.Context, req *wire.CreatePatientRequest) (*wire.PatientResponse, error)
	GetPatient(ctx context.Context, req *wire.GetPatientRequest) (*wire.PatientResponse, error)
	GetAllPatients(ctx context.Context, req *wire.GetAllPatientsRequest) (*wire.GetAllPatientsResponse, error)
	SearchPatientById(ctx context.Context, req *wire.SearchPatientByIDRequest) (*wire.PatientResponse, error)
	UpdatePatient(ctx context.Context, req *wire.UpdatePatientRequest) (*wire.PatientResponse, error)
	DeletePatient(ctx context.Context, req *wire.DeletePatientRequest) (*wire.DeletePatientResponse, error)
}

var _ PatientAPI = (*PatientService)(nil)
var _ PatientAPI = (*Client)(nil)

func fullMethod(name string) string {
	return fmt.Sprintf("/%s/%s", ServiceName, name)
}

func unaryHandler[Req any](method string, call func(PatientAPI, context.Context, *Req) (interface{}, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(PatientAPI), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod(method)}
			return interceptor(ctx, in, info, func(ctx context.Context, req interface{}) (interface{}, error) {
				return call(srv.(PatientAPI), ctx, req.(*Req))
			})
		},
	}
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*PatientAPI)(nil),
	Methods: []grpc.MethodDesc{
		unaryHandler("CreatePatient", func(api PatientAPI, ctx context.Context, req *wire.CreatePatientRequest) (interface{}, error) {
			return api.CreatePatient(ctx, req)
		}),
		unaryHandler("GetPatient", func(api PatientAPI, ctx context.Context, req *wire.GetPatientRequest) (interface{}, error) {
			return api.GetPatient(ctx, req)
		}),
		unaryHandler("GetAllPatients", func(api PatientAPI, ctx context.Context, req *wire.GetAllPatientsRequest) (interface{}, error) {
			return api.GetAllPatients(ctx, req)
		}),
		unaryHandler("SearchPatientById", func(api PatientAPI, ctx context.Context, req *wire.SearchPatientByIDRequest) (interface{}, error) {
			return api.SearchPatientById(ctx, req)
		}),
		unaryHandler("UpdatePatient", func(api PatientAPI, ctx context.Context, req *wire.UpdatePatientRequest) (interface{}, error) {
			return api.UpdatePatient(ctx, req)
		}),
		unaryHandler("DeletePatient", func(api PatientAPI, ctx context.Context, req *wire.DeletePatientRequest) (interface{}, error) {
			return api.DeletePatient(ctx, req)
		}),
	},
	Streams: []grpc.StreamDesc{},
}

// NewGRPCServer builds a grpc.Server hosting the patient service with the
// JSON codec forced and per-call logging.
func NewGRPCServer(api PatientAPI, log zerolog.Logger) *grpc.Server {
	srv := grpc.NewServer(
		grpc.ForceServerCodec(jsonCodec{}),
		grpc.UnaryInterceptor(loggingInterceptor(log)),
	)
	srv.RegisterService(&serviceDesc, api)
	return srv
}

func loggingInterceptor(log zerolog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		evt := log.Info()
		if err != nil {
			evt = log.Warn().Str("code", status.Code(err).String())
		}
		evt.Str("method", info.FullMethod).
			Dur("duration", time.Since(start)).
			Msg("rpc")
		return resp, err
	}
}

// Client is the remote implementation of PatientAPI. Connections are
// plaintext; transport security is out of band.
type Client struct {
	conn *grpc.ClientConn
}

func NewClient(addr string) (*Client, error) {
	conn, err := grpc.NewClient(addr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(codecName)),
	)
	if err != nil {
		return nil, fmt.Errorf("rpc: connect %s: %w", addr, err)
	}
	return &Client{conn: conn}, nil
}

func (c *Client) Close() error {
	return c.conn.Close()
}

func (c *Client) CreatePatient(ctx context.Context, req *wire.CreatePatientRequest) (*wire.PatientResponse, error) {
	out := new(wire.PatientResponse)
	if err := c.conn.Invoke(ctx, fullMethod("CreatePatient"), req, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetPatient(ctx context.Context, req *wire.GetPatientRequest) (*wire.PatientResponse, error) {
	out := new(wire.PatientResponse)
	if err := c.conn.Invoke(ctx, fullMethod("GetPatient"), req, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetAllPatients(ctx context.Context, req *wire.GetAllPatientsRequest) (*wire.GetAllPatientsResponse, error) {
	out := new(wire.GetAllPatientsResponse)
	if err := c.conn.Invoke(ctx, fullMethod("GetAllPatients"), req, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) SearchPatientById(ctx context.Context, req *wire.SearchPatientByIDRequest) (*wire.PatientResponse, error) {
	out := new(wire.PatientResponse)
	if err := c.conn.Invoke(ctx, fullMethod("SearchPatientById"), req, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) UpdatePatient(ctx context.Context, req *wire.UpdatePatientRequest) (*wire.PatientResponse, error) {
	out := new(wire.PatientResponse)
	if err := c.conn.Invoke(ctx, fullMethod("UpdatePatient"), req, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) DeletePatient(ctx context.Context, req *wire.DeletePatientRequest) (*wire.DeletePatientResponse, error) {
	out := new(wire.DeletePatientResponse)
	if err := c.conn.Invoke(ctx, fullMethod("DeletePatient"), req, out); err != nil {
		return nil, err
	}
	return out, nil
}
