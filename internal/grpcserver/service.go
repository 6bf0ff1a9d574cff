package grpcserver

import (
	"context"

	"google.golang.org/grpc"

	"petrocore/internal/catalog"
	"petrocore/pkg/models"
)

const ServiceName = "petrocore.v1.Catalog"

type SearchRequest struct {
	Kind     string         `json:"kind"`
	Category string         `json:"category,omitempty"`
	Q        string         `json:"q,omitempty"`
	Facets   catalog.Facets `json:"facets"`
	Page     int            `json:"page,omitempty"`
	PageSize int            `json:"page_size,omitempty"`
}

type SearchResponse struct {
	Items      []models.DisplayItem `json:"items"`
	Pagination models.Pagination    `json:"pagination"`
}

type GetSpecimenRequest struct {
	ID string `json:"id"`
}

type GetSpecimenResponse struct {
	Specimen *models.Specimen `json:"specimen"`
	Images   []models.Image   `json:"images"`
}

// CatalogServer is the server API for petrocore.v1.Catalog.
type CatalogServer interface {
	Search(context.Context, *SearchRequest) (*SearchResponse, error)
	GetSpecimen(context.Context, *GetSpecimenRequest) (*GetSpecimenResponse, error)
}

func RegisterCatalogServer(s grpc.ServiceRegistrar, srv CatalogServer) {
	s.RegisterService(&catalogServiceDesc, srv)
}

var catalogServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*CatalogServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Search", Handler: searchHandler},
		{MethodName: "GetSpecimen", Handler: getSpecimenHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "petrocore/v1/catalog",
}

func searchHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(SearchRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(CatalogServer).Search(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/Search"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(CatalogServer).Search(ctx, req.(*SearchRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func getSpecimenHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(GetSpecimenRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(CatalogServer).GetSpecimen(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/GetSpecimen"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(CatalogServer).GetSpecimen(ctx, req.(*GetSpecimenRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// Client calls petrocore.v1.Catalog over any connection.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func (c *Client) Search(ctx context.Context, in *SearchRequest, opts ...grpc.CallOption) (*SearchResponse, error) {
	out := new(SearchResponse)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/Search", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetSpecimen(ctx context.Context, in *GetSpecimenRequest, opts ...grpc.CallOption) (*GetSpecimenResponse, error) {
	out := new(GetSpecimenResponse)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/GetSpecimen", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
