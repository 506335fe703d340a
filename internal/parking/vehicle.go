package parking

import "fmt"

// VehicleType is a closed enum. The numeric codes are part of the external
// interface and must not be reordered.
type VehicleType int

const (
	Bike VehicleType = iota
	Car
	Truck
)

func (v VehicleType) String() string {
	switch v {
	case Bike:
		return "bike"
	case Car:
		return "car"
	case Truck:
		return "truck"
	}
	return fmt.Sprintf("vehicle(%d)", int(v))
}

func (v VehicleType) Valid() bool {
	return v >= Bike && v <= Truck
}

func ParseVehicleType(s string) (VehicleType, error) {
	switch s {
	case "bike", "0":
		return Bike, nil
	case "car", "1":
		return Car, nil
	case "truck", "2":
		return Truck, nil
	}
	return 0, fmt.Errorf("unknown vehicle type %q", s)
}

type LaneType int

const (
	Normal LaneType = iota
	Fastlane
)

func (l LaneType) String() string {
	switch l {
	case Normal:
		return "normal"
	case Fastlane:
		return "fastlane"
	}
	return fmt.Sprintf("lane(%d)", int(l))
}

func (l LaneType) Valid() bool {
	return l == Normal || l == Fastlane
}

func ParseLaneType(s string) (LaneType, error) {
	switch s {
	case "normal", "0":
		return Normal, nil
	case "fastlane", "1":
		return Fastlane, nil
	}
	return 0, fmt.Errorf("unknown lane type %q", s)
}

// Category is a (VehicleType, LaneType) pair with its own capacity and
// hourly rate.
type Category struct {
	Vehicle VehicleType
	Lane    LaneType
}

func (c Category) String() string {
	return c.Vehicle.String() + "/" + c.Lane.String()
}

func (c Category) Valid() bool {
	return c.Vehicle.Valid() && c.Lane.Valid()
}

// Categories returns every modeled slot category.
func Categories() []Category {
	var out []Category
	for v := Bike; v <= Truck; v++ {
		for l := Normal; l <= Fastlane; l++ {
			out = append(out, Category{Vehicle: v, Lane: l})
		}
	}
	return out
}
