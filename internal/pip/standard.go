package pip

import "github.com/quillaja/cloudsim/internal/registry"

// Standard holds the types registered by RegisterStandard.
type Standard struct {
	CloudPip, SupernovaPip *registry.PipType

	Cloud, Star, MassiveStar, Supernova *registry.ParticleType
}

// RegisterStandard registers the cloud and supernova pips and the cloud,
// star, massivestar and supernova particle types.
func RegisterStandard(reg *registry.Registry) (*Standard, error) {
	var (
		st  Standard
		err error
	)
	if st.CloudPip, err = reg.RegisterPip(CloudName, NewCloud); err != nil {
		return nil, err
	}
	if st.SupernovaPip, err = reg.RegisterPip(SupernovaName, NewSupernova); err != nil {
		return nil, err
	}
	if st.Cloud, err = reg.RegisterType("cloud", st.CloudPip.ID); err != nil {
		return nil, err
	}
	if st.Star, err = reg.RegisterType("star"); err != nil {
		return nil, err
	}
	if st.MassiveStar, err = reg.RegisterType("massivestar"); err != nil {
		return nil, err
	}
	if st.Supernova, err = reg.RegisterType("supernova", st.SupernovaPip.ID); err != nil {
		return nil, err
	}
	return &st, nil
}
