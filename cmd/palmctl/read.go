package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/satriahrh/palmistry/adapters/camera"
	"github.com/satriahrh/palmistry/adapters/imaging"
	"github.com/satriahrh/palmistry/adapters/relay"
	"github.com/satriahrh/palmistry/domain/entities"
	"github.com/satriahrh/palmistry/internal/flow"
	"github.com/satriahrh/palmistry/internal/render"
	"github.com/satriahrh/palmistry/usecase"
)

func newReadCmd(root *rootOptions) *cobra.Command {
	var imagePath string
	var cameraPath string
	var zodiac string
	var relayURL string
	var multipart bool

	cmd := &cobra.Command{
		Use:   "read",
		Short: "Read a palm and render the fortune report",
		Example: `  # Read an existing photo
  palmctl read --image palm.jpg --zodiac 獅子座

  # Treat a still frame as the camera feed, English sign names work too
  palmctl read --camera frame.png --zodiac Leo

  # Send the photo as a file upload instead of base64 JSON
  palmctl read --image palm.webp --zodiac 魚座 --multipart`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if (imagePath == "") == (cameraPath == "") {
				return fmt.Errorf("exactly one of --image or --camera is required")
			}
			sign, ok := entities.ParseZodiac(zodiac)
			if !ok {
				return fmt.Errorf("unknown zodiac sign %q, see \"palmctl zodiacs\"", zodiac)
			}

			cfg, err := root.load()
			if err != nil {
				return err
			}
			if relayURL == "" {
				relayURL = cfg.Client.RelayURL
			}
			logger := root.logger()
			defer logger.Sync()

			client, err := relay.NewClient(relay.Config{
				BaseURL:   relayURL,
				Token:     cfg.Client.RelayToken,
				Multipart: multipart,
			}, logger)
			if err != nil {
				return err
			}

			normalizer, err := imaging.NewNormalizer(imaging.Config{}, logger)
			if err != nil {
				return err
			}
			capture := usecase.NewCaptureController(camera.NewStillCamera(cameraPath, logger), normalizer, logger)
			machine := flow.NewMachine(capture, client, logger)
			defer machine.Close()

			return runReading(cmd, machine, imagePath, sign, logger)
		},
	}

	cmd.Flags().StringVar(&imagePath, "image", "", "Palm photo to upload")
	cmd.Flags().StringVar(&cameraPath, "camera", "", "Still image used as the camera feed")
	cmd.Flags().StringVar(&zodiac, "zodiac", "", "Zodiac sign, Japanese name or English id")
	cmd.Flags().StringVar(&relayURL, "relay", "", "Relay base URL (defaults to $PALM_RELAY_URL)")
	cmd.Flags().BoolVar(&multipart, "multipart", false, "Upload the image as multipart form data")
	_ = cmd.MarkFlagRequired("zodiac")

	return cmd
}

func runReading(cmd *cobra.Command, machine *flow.Machine, imagePath string, sign entities.ZodiacSign, logger *zap.Logger) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	renderer := render.NewRenderer(60)

	machine.OnChange(func(p flow.Phase) {
		if loading, ok := p.(flow.Loading); ok {
			fmt.Fprintln(out, renderer.Phase(loading))
		}
	})

	if err := machine.OpenActionSheet(); err != nil {
		return err
	}

	if imagePath != "" {
		f, err := os.Open(imagePath)
		if err != nil {
			return fmt.Errorf("failed to open image: %w", err)
		}
		err = machine.ChooseFile(f)
		f.Close()
		if err != nil {
			return noticeError(out, renderer, machine, err)
		}
	} else {
		if err := machine.StartCamera(ctx); err != nil {
			return err
		}
		if p, ok := machine.Phase().(flow.Capture); !ok || !p.CameraAvailable {
			return fmt.Errorf("camera unavailable, use --image instead")
		}
		if err := machine.CapturePhoto(ctx); err != nil {
			return noticeError(out, renderer, machine, err)
		}
	}

	if err := machine.ConfirmCapture(); err != nil {
		return err
	}
	if err := machine.SelectZodiac(sign); err != nil {
		return err
	}
	if !machine.ProceedEnabled() {
		return fmt.Errorf("cannot proceed without an image and a sign")
	}

	if err := machine.Proceed(ctx); err != nil {
		logger.Debug("Reading failed", zap.Error(err))
		return noticeError(out, renderer, machine, err)
	}

	fmt.Fprintln(out, renderer.Phase(machine.Phase()))
	return nil
}

// noticeError shows the landing notice and returns the underlying error.
func noticeError(out io.Writer, renderer *render.Renderer, machine *flow.Machine, err error) error {
	if landing, ok := machine.Phase().(flow.Landing); ok && landing.Notice != "" {
		fmt.Fprintln(out, renderer.Phase(landing))
	}
	return err
}
