package imageio

import (
	"fmt"

	"github.com/biteenlab/biteen-utilities/npyfile"
	"github.com/biteenlab/biteen-utilities/utils"
)

type npyCodec struct{}

func (npyCodec) Read(path string) (*Stack, error) {
	a, err := npyfile.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if a.DType != "u1" && a.DType != "u2" {
		return nil, fmt.Errorf("%w: image dtype %s, want uint8 or uint16", utils.ErrInvalidParameter, a.DType)
	}
	axes, err := axesForRank(len(a.Shape))
	if err != nil {
		return nil, err
	}
	data := make([]uint16, len(a.Data))
	for i, v := range a.Data {
		data[i] = uint16(v)
	}
	return NewStack(axes, a.Shape, data)
}

func (npyCodec) Write(path string, s *Stack) error {
	data := make([]float64, len(s.Data))
	for i, v := range s.Data {
		data[i] = float64(v)
	}
	return npyfile.WriteFile(path, &npyfile.Array{Shape: s.Shape, DType: "u2", Data: data})
}
